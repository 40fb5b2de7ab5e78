// Package llm turns free-text campaign descriptions into campaign filters using a
// hosted language model. It supports Mistral, OpenAI, Anthropic and Gemini, with
// rate limiting, retries, and a strict parser that never executes model output.
package llm
