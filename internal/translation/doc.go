// Package translation provides single-word translation lookups. The default
// client queries the MyMemory REST API; an OpenAI chat-completion client is
// available as an alternative provider. Failures are reported as
// TransportError or ParseError.
package translation
