package types

import (
	"fmt"
	"time"
)

// Session binds a gateway-issued token to the upstream XAUTH token obtained
// at login. It is passed explicitly to the upstream client and the payment
// orchestrator instead of living in ambient global state.
type Session struct {
	ID            string    `json:"id"`
	UpstreamToken string    `json:"upstream_token"`
	User          User      `json:"user"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s Session) Key() string {
	return fmt.Sprintf("session-%s", s.ID)
}
