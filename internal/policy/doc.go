// Package policy loads capability policy packs written in CUE and turns
// them into observer frames.
//
// A policy pack declares roles, the capabilities each role holds, its
// authorization level, and the invariant ids it may evaluate:
//
//	role: operator: {
//		auth_level: 2
//		capabilities: ["predict", "act:adjust_valve"]
//		invariants: ["authorization_scope", "prediction_availability"]
//	}
//
// Loading is fail-closed: a role naming an invariant id the registry
// does not know is a load error, not a silent grant. The loaded pack
// doubles as the engine's capability policy adapter.
package policy
