// Package llm provides generative-text backends and the expense classifier built
// on top of them. It supports Gemini, Anthropic and OpenAI providers, with
// retry logic, rate limiting, and response caching. The classifier never
// returns an error to its caller: every failure resolves to the Other category.
package llm
