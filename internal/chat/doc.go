// Package chat provides the completion backends used for document
// summarization.
//
// Two providers are supported: a local Ollama server (the default) and
// the OpenAI chat completions API. Both implement Client, a single
// system+user exchange returning the reply text plus whatever token
// usage the provider reported. Summarization treats per-call failures as
// recoverable, so unlike the embedding providers there is no retry
// layer; the caller falls back to the raw document.
//
// Provider selection comes from SEMDEX_CHAT_PROVIDER and
// SEMDEX_CHAT_MODEL.
package chat
