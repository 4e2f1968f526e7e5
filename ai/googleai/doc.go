// Package googleai implements ai.AIProvider on top of Google's Gemini API
// using langchaingo's googleai client.
//
// Every generation model gets its own client so concurrent calls never
// share per-model state. Errors are passed through googleai.MapError so
// callers can inspect them with langchaingo's llms.Is*Error helpers.
package googleai
