// Package model contains implementations of core.Generator. The openai and
// anthropic sub-packages adapt the respective provider SDKs; Mock provides a
// scripted in-memory generator for tests and offline development.
package model
