package main

import (
	"os"
	"testing"
)

func TestApplyEnvOverridesBasic(t *testing.T) {
	base := &appConfig{
		listenAddr:  ":20100",
		logFormat:   "text",
		logLevel:    "info",
		metricsAddr: "",
		mdnsEnable:  false,
		mdnsName:    "",
	}

	os.Setenv("GSFW_DEMO_LISTEN", ":20200")
	os.Setenv("GSFW_DEMO_MDNS_ENABLE", "true")
	t.Cleanup(func() {
		os.Unsetenv("GSFW_DEMO_LISTEN")
		os.Unsetenv("GSFW_DEMO_MDNS_ENABLE")
	})

	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if base.listenAddr != ":20200" {
		t.Fatalf("listenAddr = %q, want :20200", base.listenAddr)
	}
	if !base.mdnsEnable {
		t.Fatal("mdnsEnable = false, want true")
	}
}

func TestApplyEnvOverridesFlagWins(t *testing.T) {
	base := &appConfig{listenAddr: ":20100", logFormat: "text", logLevel: "info"}
	os.Setenv("GSFW_DEMO_LISTEN", ":20200")
	t.Cleanup(func() { os.Unsetenv("GSFW_DEMO_LISTEN") })

	if err := applyEnvOverrides(base, map[string]struct{}{"listen": {}}); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if base.listenAddr != ":20100" {
		t.Fatalf("listenAddr = %q, want :20100 (flag should win)", base.listenAddr)
	}
}

func TestApplyEnvOverridesInvalidBool(t *testing.T) {
	base := &appConfig{listenAddr: ":20100", logFormat: "text", logLevel: "info"}
	os.Setenv("GSFW_DEMO_MDNS_ENABLE", "not-a-bool")
	t.Cleanup(func() { os.Unsetenv("GSFW_DEMO_MDNS_ENABLE") })

	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}
