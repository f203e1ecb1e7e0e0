package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog stores the result of a keyed request so replays return it.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "owner_id:transfer:client_key"
	Reference    string    `json:"reference"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildTransferIdempotencyKey scopes a client key to its owner.
func BuildTransferIdempotencyKey(ownerID uuid.UUID, clientKey string) string {
	return ownerID.String() + ":transfer:" + clientKey
}
