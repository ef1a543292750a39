// Package generation defines the boundary to the language models that fill in
// missing display fields (reading and meaning) for kanji items. Concrete
// generators live in platform/gemini and platform/openai.
package generation
