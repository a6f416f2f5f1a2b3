// Package translate provides machine translation backends for subtitle cues.
//
// HTTPTranslator speaks the LibreTranslate JSON API and retries throttled or
// failing requests with exponential backoff. MockTranslator is deterministic
// and used for tests and offline runs.
package translate
