package report

import "testing"

func TestInferCommandFromAction_DiskCleanup(t *testing.T) {
	cmd := InferCommandFromAction("clean up disk space", "disk full on /var")
	if cmd != `sudo find /var/log -name '*.gz' -mtime +7 -delete` {
		t.Fatalf("unexpected command: %q", cmd)
	}
}

func TestInferCommandFromAction_ServiceRestart(t *testing.T) {
	cmd := InferCommandFromAction("restart payment-api service", "payment-api systemd unit crashed")
	if cmd == "" {
		t.Fatal("expected a command")
	}
}

func TestInferCommandFromAction_NoMatchReturnsEmpty(t *testing.T) {
	if cmd := InferCommandFromAction("celebrate", "everything is fine"); cmd != "" {
		t.Fatalf("expected no command, got %q", cmd)
	}
}
