// Package chatclient defines the model client boundary: the message and
// tool-call types exchanged with a hosted LLM service, a provider-agnostic
// ChatClient interface, an error taxonomy with per-error retry strategies,
// and bounded retry with exponential backoff.
//
// Three adapters are provided: OpenAIClient (chat completions with native
// tool calls), AnthropicClient (messages API with tool_use blocks), and
// GollmClient (text-oriented fallback through the gollm library).
//
// The session orchestrator consumes only the ChatClient interface and the
// RetryStrategy classification; everything provider-specific stays behind
// the adapters.
package chatclient
