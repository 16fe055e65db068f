package greenlight

import "github.com/ternarybob/chameleon/internal/models"

// NavigationFor returns the action allowance for a green-light status.
// RED targets are observe-only; the budget widens one tier at a time up
// to unrestricted navigation for ESTABLISHED targets.
func NavigationFor(status models.GreenLightStatus) models.NavigationCapability {
	switch status {
	case models.GreenLightYellow:
		return models.NavigationCapability{
			CanNavigate:     true,
			MaxRequestsPerS: 1.0 / 3.0,
			Note:            "read-only, one request per three seconds",
		}
	case models.GreenLightGreen:
		return models.NavigationCapability{
			CanNavigate:     true,
			MaxRequestsPerS: 3,
			AllowForms:      true,
			Note:            "simple forms allowed",
		}
	case models.GreenLightEstablished:
		return models.NavigationCapability{
			CanNavigate:     true,
			MaxRequestsPerS: 0,
			AllowForms:      true,
			Unrestricted:    true,
		}
	default:
		return models.NavigationCapability{
			CanNavigate: false,
			Note:        "analyze only",
		}
	}
}
