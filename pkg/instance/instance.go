package instance

import "github.com/angelmondragon/boxoffice-backend/pkg/env"

// GetID names the running process in logs and lock values. Platform
// identifiers win over the explicit override so dyno restarts stay traceable.
func GetID(fallback string) string {
	return env.Get(fallback, "DYNO", "BOXOFFICE_INSTANCE_ID", "HOSTNAME")
}
