package service

// QRCodeService renders QR codes for TOTP enrollment so clients can scan the
// provisioning URI directly into an authenticator app.
type QRCodeService interface {
	// GenerateTOTPEnrollmentQR renders the otpauth:// URI as a PNG image.
	GenerateTOTPEnrollmentQR(uri string) ([]byte, error)
}
