// Package gemini implements generation.FieldGenerator on top of Google's
// Gemini API (google.golang.org/genai). Transient API failures are retried with
// exponential backoff; safety blocks and malformed responses are permanent.
package gemini
