package engine

import "strings"

// challengeMarkers are the body substrings that mark an anti-bot
// interstitial regardless of status code.
var challengeMarkers = []string{"challenge", "captcha", "shield", "bot detected"}

// challengeLabels maps known vendor fingerprints to the classified type.
// Order matters: first match wins.
var challengeLabels = []string{"altcha", "recaptcha", "hcaptcha", "cf-turnstile"}

// DetectChallenge decides whether a response is a security interstitial.
// A challenge is flagged on status 403/429, on any known body marker, or
// on a JavaScript response carrying an eval (interstitial loaders ship
// obfuscated eval bundles).
func DetectChallenge(status int, contentType, body string) bool {
	if status == 403 || status == 429 {
		return true
	}
	lowered := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	if strings.Contains(strings.ToLower(contentType), "javascript") && strings.Contains(lowered, "eval") {
		return true
	}
	return false
}

// ClassifyChallenge names the challenge vendor by body fingerprint, or
// "unknown" when no known label matches.
func ClassifyChallenge(body string) string {
	lowered := strings.ToLower(body)
	for _, label := range challengeLabels {
		if strings.Contains(lowered, label) {
			return label
		}
	}
	return "unknown"
}
