// Package openai implements turnkit.ModelBackend against the
// chat-completions streaming API. It builds the request (turn history,
// tool declarations, system prompt), performs the exchange, and returns
// the raw SSE body for stream.Parser to decode. Any server speaking the
// same wire works via WithBaseURL.
package openai
