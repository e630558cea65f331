package updates

import (
	"fmt"

	"go.mozilla.org/pkcs7"
)

// unwrapPKCS7 returns the content of a DER encoded PKCS#7 SignedData after
// checking that its signatures match the embedded certificates
func unwrapPKCS7(signedData []byte) ([]byte, error) {
	p7, err := pkcs7.Parse(signedData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signed data: %w", err)
	}

	if err := p7.Verify(); err != nil {
		return nil, fmt.Errorf("failed to verify signed data: %w", err)
	}

	if len(p7.Content) == 0 {
		return nil, fmt.Errorf("signed data carries no content")
	}
	return p7.Content, nil
}
