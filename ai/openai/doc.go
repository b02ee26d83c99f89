// Package openai implements the ai capability interfaces over any
// OpenAI-compatible API (Ollama, LocalAI, vLLM, hosted OpenAI), using
// langchaingo clients.
package openai
