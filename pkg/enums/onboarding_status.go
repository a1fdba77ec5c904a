package enums

import "fmt"

// OnboardingStatus tracks where a provider's connected account sits in the
// processor onboarding lifecycle.
type OnboardingStatus string

const (
	OnboardingStatusNotStarted OnboardingStatus = "not_started"
	OnboardingStatusLinkIssued OnboardingStatus = "link_issued"
	OnboardingStatusInProgress OnboardingStatus = "in_progress"
	OnboardingStatusComplete   OnboardingStatus = "complete"
	OnboardingStatusRestricted OnboardingStatus = "restricted"
)

var validOnboardingStatuses = []OnboardingStatus{
	OnboardingStatusNotStarted,
	OnboardingStatusLinkIssued,
	OnboardingStatusInProgress,
	OnboardingStatusComplete,
	OnboardingStatusRestricted,
}

// String implements fmt.Stringer.
func (o OnboardingStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is known.
func (o OnboardingStatus) IsValid() bool {
	for _, candidate := range validOnboardingStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOnboardingStatus converts raw input into an OnboardingStatus.
func ParseOnboardingStatus(value string) (OnboardingStatus, error) {
	for _, candidate := range validOnboardingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid onboarding status %q", value)
}
