package report

import (
	"regexp"
	"strings"
)

var (
	deviceRe  = regexp.MustCompile(`(eth\d+|veth\d+|ens\d+\w*|enp\d+s\d+\w*|dummy\d+)`)
	serviceRe = regexp.MustCompile(`(\w+[-\w]*(?:\.service)?)`)
)

// InferCommandFromAction guesses a shell command for a remediation step
// when the model didn't provide one, based on keyword matches against the
// action text and root cause. Returns "" when nothing matches.
func InferCommandFromAction(action, rootCause string) string {
	actionLower := strings.ToLower(action)
	rootCauseLower := strings.ToLower(rootCause)
	combined := actionLower + " " + rootCauseLower

	switch {
	case containsAny(combined, "interface", "network", "eth", "veth", "ens", "enp"):
		device := "eth0"
		if m := deviceRe.FindString(combined); m != "" {
			device = m
		}
		switch {
		case containsAny(actionLower, "bring up", "set up", "restore", "enable", "fix"):
			return "sudo ip link set " + device + " up"
		case containsAny(actionLower, "verify", "check", "status", "investigate"):
			return "ip link show " + device
		case containsAny(actionLower, "ping", "connectivity", "network"):
			return `ping -c 3 $(ip route | grep default | awk '{print $3}')`
		case containsAny(actionLower, "dmesg", "kernel", "log"):
			return "dmesg | tail -50 | grep -i " + device
		default:
			return "ip link show " + device
		}

	case containsAny(combined, "disk", "space", "storage", "full"):
		switch {
		case containsAny(actionLower, "check", "verify", "status"):
			return "df -h"
		case containsAny(actionLower, "clean", "clear", "remove", "delete"):
			return `sudo find /var/log -name '*.gz' -mtime +7 -delete`
		default:
			return "df -h"
		}

	case containsAny(combined, "memory", "oom", "ram"):
		if containsAny(actionLower, "check", "verify", "status") {
			return "free -m"
		}
		return "free -m && top -bn1 | head -20"

	case containsAny(combined, "cpu", "load", "process"):
		return "top -bn1 | head -20"

	case containsAny(combined, "service", "systemd", "daemon"):
		service := "service-name"
		if m := serviceRe.FindString(combined); m != "" {
			service = strings.ReplaceAll(m, ".service", "")
		}
		switch {
		case containsAny(actionLower, "restart"):
			return "sudo systemctl restart " + service
		case containsAny(actionLower, "check", "status", "verify"):
			return "systemctl status " + service
		case containsAny(actionLower, "start"):
			return "sudo systemctl start " + service
		default:
			return "systemctl status " + service
		}

	case containsAny(combined, "container", "docker", "pod"):
		switch {
		case containsAny(actionLower, "restart"):
			return "docker ps -a && docker restart <container_id>"
		case containsAny(actionLower, "check", "status", "verify"):
			return "docker ps -a"
		case containsAny(actionLower, "logs"):
			return "docker logs --tail 100 <container_id>"
		default:
			return "docker ps -a"
		}

	case containsAny(combined, "kubernetes", "kubectl", "k8s", "deployment", "pod"):
		switch {
		case containsAny(actionLower, "restart", "rollout"):
			return "kubectl rollout restart deployment/<deployment-name>"
		case containsAny(actionLower, "scale"):
			return "kubectl scale deployment/<deployment-name> --replicas=3"
		case containsAny(actionLower, "check", "status", "verify"):
			return "kubectl get pods"
		default:
			return "kubectl get pods"
		}

	case containsAny(actionLower, "investigate", "review", "check", "verify"):
		return "journalctl -xe --no-pager | tail -100"

	case containsAny(actionLower, "log", "error"):
		return "journalctl -xe --no-pager | tail -50"
	}

	return ""
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
