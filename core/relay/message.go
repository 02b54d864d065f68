package relay

// Message is the envelope delivered to every member of a relay group. Type
// discriminates the payload; Fields carries the JSON body sent to clients.
type Message struct {
	Type   string         `json:"type"`
	Sender string         `json:"sender,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Message types published by the dispatch engine and signaling coordinator.
const (
	TypeNewRequest         = "NEW_REQUEST"
	TypeMechanicAssigned   = "MECHANIC_ASSIGNED"
	TypeNoMechanicAccepted = "NO_MECHANIC_ACCEPTED"
	TypeLocationUpdate     = "LOCATION_UPDATE"
	TypeJobCompleted       = "JOB_COMPLETED"
	TypeIncomingCall       = "incoming_call"
)

// Call signaling message types accepted from clients.
const (
	TypeStartCall    = "start_call"
	TypeAcceptCall   = "accept_call"
	TypeRejectCall   = "reject_call"
	TypeEndCall      = "end_call"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
)
