package preset

import (
	"github.com/supportdesk/intake-engine/internal/domain"
)

// ITSupportV1ID is the id of the built-in IT support preset, the only
// preset that ships by default.
const ITSupportV1ID = "it_support.v1"

// ITSupportV1 returns the built-in IT support rule set. Rule order matters:
// outage keywords are checked before the broader network and auth rules so
// "prod down" never lands in network_wifi.
func ITSupportV1() *Preset {
	return &Preset{
		ID: ITSupportV1ID,
		Rules: []CategoryRule{
			{Category: "server_outage", AnyOf: []string{"outage", "server down", "prod down", "production down", "incident"}},
			{Category: "network_wifi", AnyOf: []string{"wifi", "internet", "vpn", "network"}},
			{Category: "auth_password", AnyOf: []string{"password", "reset password", "forgot password", "login"}},
			{Category: "access_permissions", AnyOf: []string{"permission", "access", "unauthorized", "forbidden"}},
			{Category: "software_app", AnyOf: []string{"install", "software", "app", "license"}},
			{Category: "hardware_device", AnyOf: []string{"laptop", "printer", "screen", "keyboard", "mouse"}},
		},
		CriticalCategories: []string{"server_outage"},
		UrgencyKeywords:    []string{"down", "urgent", "asap"},
		CategoryPriorities: map[string]domain.Priority{
			"network_wifi":  domain.PriorityHigh,
			"auth_password": domain.PriorityNormal,
		},
		SLASeconds: map[domain.Priority]int{
			domain.PriorityCritical: 3600,
			domain.PriorityHigh:     14400,
			domain.PriorityNormal:   86400,
			domain.PriorityLow:      259200,
		},
	}
}
