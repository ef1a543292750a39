// Package openai implements generation.FieldGenerator against any
// OpenAI-compatible chat completion endpoint.
package openai
