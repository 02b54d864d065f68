package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aapatcall/roadassist/core/dispatch"
	"github.com/aapatcall/roadassist/core/dispatch/audit"
	"github.com/aapatcall/roadassist/core/jobs"
	"github.com/aapatcall/roadassist/core/model"
	"github.com/aapatcall/roadassist/core/registry"
	"github.com/aapatcall/roadassist/core/relay"
)

// TestDispatchScenario walks the canonical matching flow: two available
// mechanics near a stranded driver, the nearest declines, the second accepts,
// and the driver's tracking channel hears about the assignment exactly once.
func TestDispatchScenario(t *testing.T) {
	ctx := context.Background()
	origin := model.Coordinates{Lat: 23.2, Lng: 77.4}

	reg := registry.NewMemoryStore()
	// A is ~2 km out, B ~1 km.
	reg.Upsert(model.Mechanic{
		ID: "A", Name: "Asha", Phone: "9999900002", Available: true,
		HasLocation: true, Location: model.Coordinates{Lat: 23.218, Lng: 77.4},
	})
	reg.Upsert(model.Mechanic{
		ID: "B", Name: "Bilal", Phone: "9999900001", Available: true,
		HasLocation: true, Location: model.Coordinates{Lat: 23.209, Lng: 77.4},
	})

	jobStore := jobs.NewMemoryStore()
	require.NoError(t, jobStore.Create(ctx, model.Job{
		ID: "job1", UserID: "u1", Problem: "engine won't start",
		Location: origin, Status: model.JobPending,
	}))

	bus := relay.New(nil)
	connA := relay.NewChanConn("A-phone", 8)
	connB := relay.NewChanConn("B-phone", 8)
	driver := relay.NewChanConn("driver", 8)
	bus.Join(relay.MechanicGroup("A"), connA)
	bus.Join(relay.MechanicGroup("B"), connB)
	bus.Join(relay.TrackingGroup("job1"), driver)

	eng, err := dispatch.NewEngine(reg, jobStore, bus, audit.NewMemoryStore(), nil, nil, dispatch.Config{})
	require.NoError(t, err)
	eng.SetTimeouts(time.Minute, time.Minute)
	defer eng.Close()

	id, count, err := eng.CreateDispatch(ctx, "job1", origin, model.VehicleAny)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// B is closer, so B hears first; A stays silent.
	select {
	case msg := <-connB.C:
		require.Equal(t, relay.TypeNewRequest, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("B never received the offer")
	}
	select {
	case msg := <-connA.C:
		t.Fatalf("A received %s before their turn", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}

	// B declines, the offer moves to A.
	transferred, err := eng.Decline(ctx, id, "B")
	require.NoError(t, err)
	require.True(t, transferred)
	select {
	case msg := <-connA.C:
		require.Equal(t, relay.TypeNewRequest, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("A never received the offer")
	}

	// A accepts and the driver hears exactly one assignment naming A.
	require.NoError(t, eng.Accept(ctx, id, "A"))
	select {
	case msg := <-driver.C:
		require.Equal(t, relay.TypeMechanicAssigned, msg.Type)
		assert.Equal(t, "Asha", msg.Fields["mechanic_name"])
	case <-time.After(time.Second):
		t.Fatal("driver never heard about the assignment")
	}
	select {
	case msg := <-driver.C:
		t.Fatalf("driver received an extra %s", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}

	job, err := jobStore.Get(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, model.JobAccepted, job.Status)
	assert.Equal(t, "A", job.MechanicID)
}
