// Package triage implements MedAssist's symptom triage decision
// pipeline: the deterministic red-flag Detector, the Provider interface
// for reasoning backends, guardrail reconciliation of model output, and
// the Engine tying them together with instrumentation hooks.
package triage
