package memory

import (
	"testing"

	"github.com/example/event-roster/internal/persistence"
	"github.com/example/event-roster/internal/persistence/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.Store {
		return New()
	})
}
