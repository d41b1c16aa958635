package correlate

import "github.com/codeready-toolchain/rca-service/pkg/models"

// ElectPrimaryAlert picks the member alert most likely to be the incident's
// root cause: highest causal score, with a one-point tie-break bonus for
// whichever alert is chronologically earliest among the members (alerts
// must be pre-sorted by StartsAt ascending).
func ElectPrimaryAlert(alerts []*models.Alert) *models.Alert {
	if len(alerts) == 0 {
		return nil
	}

	earliest := alerts[0].StartsAt
	best := alerts[0]
	bestScore := CausalScore(best) + 1

	for _, a := range alerts[1:] {
		score := CausalScore(a)
		timeBonus := 0
		if a.StartsAt.Equal(earliest) {
			timeBonus = 1
		}
		if score+timeBonus > bestScore {
			bestScore = score + timeBonus
			best = a
		}
	}
	return best
}
