// Package roles wires the role synchronization handlers into an event
// registry.
package roles

import (
	"fmt"

	"rolesync/internal/events"
	"rolesync/internal/roles/service"
)

// Register binds the registration handler to user creation events and the
// role change handler to updates of the service's profile collection.
func Register(reg *events.Registry, svc *service.Service) error {
	reg.OnUserCreated(svc.HandleUserCreated)

	pattern := svc.Policy().ProfilePattern()
	if err := reg.OnDocumentUpdated(pattern, svc.HandleProfileUpdated); err != nil {
		return fmt.Errorf("register %s handler: %w", pattern, err)
	}
	return nil
}
