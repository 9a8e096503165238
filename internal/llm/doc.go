// Package llm provides a provider-neutral completion client for document
// extraction. It supports Anthropic and OpenAI, with optional response caching.
package llm
