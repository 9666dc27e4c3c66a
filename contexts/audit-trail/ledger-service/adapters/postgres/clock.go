package postgresadapter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}
