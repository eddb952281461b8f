// Package harness runs conformance scenarios against the engine.
//
// A scenario is a YAML file: a scope, a sequence of lifecycle steps
// (note, ensure, supersede, act, resolve), per-step expectations on
// the outcome, and assertions over the final log and projection. Every
// run uses a fresh in-memory log, a fixed wall clock, and fixed
// predictor and calibrator ports, so the same scenario always produces
// the same trace. Golden trace comparison builds on that determinism.
package harness
