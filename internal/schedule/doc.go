// Package schedule implements the tag-driven schedule engine: a preset
// registry, a custom "days:start-stop" parser, and an evaluator that turns a
// schedule specifier plus a timestamp into a start/stop/no-action decision.
//
// Evaluation is a pure function of (specifier, clock); specs are re-parsed on
// every pass and never cached.
package schedule
