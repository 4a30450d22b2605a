package mail

import "fmt"

// ConfirmationMessage builds the email sent after registration and on
// every resend of the verification link.
func ConfirmationMessage(to, baseURL, tokenValue string) Message {
	link := fmt.Sprintf("%s/auth/emailverification/%s", baseURL, tokenValue)
	return Message{
		To:      to,
		Subject: "Chattings: Confirm your email",
		Text: fmt.Sprintf(
			"Hello!\n\nTo confirm your email follow this link:\n%s\n\nThe link is valid for one hour.", link),
		HTML: fmt.Sprintf(
			`<p>Hello!</p><p>To confirm your email follow <a href="%s">this link</a>.</p><p>The link is valid for one hour.</p>`, link),
	}
}

// RecoveryMessage builds the password recovery email.
func RecoveryMessage(to, baseURL, tokenValue string) Message {
	link := fmt.Sprintf("%s/auth/password-recovery/%s", baseURL, tokenValue)
	return Message{
		To:      to,
		Subject: "Chattings: Recover your password",
		Text: fmt.Sprintf(
			"Hello!\n\nTo set a new password follow this link:\n%s\n\nThe link is valid for one hour. If you didn't request a recovery, ignore this message.", link),
		HTML: fmt.Sprintf(
			`<p>Hello!</p><p>To set a new password follow <a href="%s">this link</a>.</p><p>The link is valid for one hour. If you didn't request a recovery, ignore this message.</p>`, link),
	}
}
