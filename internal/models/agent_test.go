package models

import "testing"

func TestAgentStatusIsOnline(t *testing.T) {
	if AgentStatusOffline.IsOnline() {
		t.Error("offline reported online")
	}
	for _, s := range []AgentStatus{AgentStatusAvailable, AgentStatusBusy, AgentStatusDelivering} {
		if !s.IsOnline() {
			t.Errorf("%s reported offline", s)
		}
	}
}

func TestGoOnlinePreservesActiveDeliveryState(t *testing.T) {
	tests := []struct {
		from, want AgentStatus
	}{
		{AgentStatusOffline, AgentStatusAvailable},
		// Toggling online mid-order must not stomp the coordinator's
		// state and re-advertise the agent as free.
		{AgentStatusBusy, AgentStatusBusy},
		{AgentStatusDelivering, AgentStatusDelivering},
		{AgentStatusAvailable, AgentStatusAvailable},
	}
	for _, tt := range tests {
		if got := tt.from.GoOnline(); got != tt.want {
			t.Errorf("GoOnline from %s = %s, want %s", tt.from, got, tt.want)
		}
	}
}
