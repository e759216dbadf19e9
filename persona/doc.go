// Package persona holds the agent instructions for both conversational
// roles: the fixed clinician system prompt and the patient prompt template
// with its pool of symptom profiles. One profile is chosen at random per
// session and recorded on the session document.
package persona
