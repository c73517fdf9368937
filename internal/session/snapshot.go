package session

// Offer is one entry in a trade session's append-only offer log. Sequence
// numbers are assigned by append order on the server, never trusted from the
// client.
type Offer struct {
	// Role is the submitting side: 1 for player1, 2 for player2.
	Role     int    `json:"role"`
	Hat      string `json:"hat"`
	Sequence int    `json:"sequence"`
}

// Purchase is one entry in a purchase session's append-only purchase log.
type Purchase struct {
	Pack  string `json:"pack"`
	Hat   string `json:"hat"`
	Price int    `json:"price"`
}

// Snapshot is an immutable point-in-time projection of one session. It is
// what goes over the wire; clients compare snapshots, they never mutate them.
type Snapshot struct {
	ID      string     `json:"id"`
	Kind    Kind       `json:"kind"`
	Status  Status     `json:"status"`
	Players []PlayerID `json:"players"`

	// Purchase payload.
	Customer  PlayerID   `json:"customer,omitempty"`
	Purchases []Purchase `json:"purchases,omitempty"`

	// Trade payload.
	Player1 PlayerID `json:"player1,omitempty"`
	Player2 PlayerID `json:"player2,omitempty"`
	Offers  []Offer  `json:"offers,omitempty"`
}
