package semantic

import (
	"testing"

	"github.com/codeready-toolchain/rca-service/pkg/models"
)

func TestCategorizeAlert_NetworkConnectivity(t *testing.T) {
	alert := &models.Alert{
		AlertName: "InterfaceDown",
		Severity:  models.SeverityCritical,
		Labels:    map[string]string{"service": "edge-router"},
		Annotations: map[string]string{
			"summary":     "interface down on core switch",
			"description": "carrier lost, link down, connection refused from peer",
		},
	}
	cat, score := CategorizeAlert(alert)
	if cat != CategoryNetworkConnectivity {
		t.Fatalf("expected network_connectivity, got %s (score %f)", cat, score)
	}
	if score <= 0 {
		t.Fatalf("expected positive score, got %f", score)
	}
}

func TestCategorizeAlert_Unknown(t *testing.T) {
	alert := &models.Alert{
		AlertName:   "GenericThing",
		Severity:    models.SeverityInfo,
		Labels:      map[string]string{},
		Annotations: map[string]string{"summary": "nothing in particular happened here today"},
	}
	cat, _ := CategorizeAlert(alert)
	if cat != CategoryUnknown {
		t.Fatalf("expected unknown, got %s", cat)
	}
}

func TestAreIncompatible_Symmetric(t *testing.T) {
	if !AreIncompatible(CategoryNetworkConnectivity, CategoryMemoryExhaustion) {
		t.Fatal("expected network_connectivity/memory_exhaustion to be incompatible")
	}
	if !AreIncompatible(CategoryMemoryExhaustion, CategoryNetworkConnectivity) {
		t.Fatal("expected incompatibility check to be symmetric")
	}
	if AreIncompatible(CategoryNetworkConnectivity, CategoryRoutingProtocol) {
		t.Fatal("did not expect network_connectivity/routing_protocol to be incompatible")
	}
}
