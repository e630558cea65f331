package updates

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/binary"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"go.mozilla.org/pkcs7"
	"golang.org/x/crypto/ssh"
)

// endpoint is an httptest handler that serves a fixed body and counts hits
type endpoint struct {
	status int
	body   []byte
	hits   atomic.Int32
}

func (e *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.hits.Add(1)
	if e.status != 0 {
		w.WriteHeader(e.status)
	}
	_, _ = w.Write(e.body)
}

type fakeRemote struct {
	server    *httptest.Server
	artifact  *endpoint
	hash      *endpoint
	signature *endpoint
}

// newFakeRemote starts the server after opts ran, so endpoints are never changed while serving
func newFakeRemote(t *testing.T, artifact, hash []byte, opts ...func(*fakeRemote)) *fakeRemote {
	t.Helper()
	remote := &fakeRemote{
		artifact:  &endpoint{body: artifact},
		hash:      &endpoint{body: hash},
		signature: &endpoint{},
	}
	for _, opt := range opts {
		opt(remote)
	}
	mux := http.NewServeMux()
	mux.Handle("/static/client/", remote.artifact)
	mux.Handle("/static/hash/client.jar.md5", remote.hash)
	mux.Handle("/static/hash/client.jar.md5.sig", remote.signature)
	remote.server = httptest.NewServer(mux)
	t.Cleanup(remote.server.Close)
	return remote
}

func (r *fakeRemote) artifactURL(name string) string {
	return r.server.URL + "/static/client/" + name
}

func (r *fakeRemote) hashURL() string {
	return r.server.URL + "/static/hash/client.jar.md5"
}

func (r *fakeRemote) signatureURL() string {
	return r.hashURL() + ".sig"
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

// signSSH produces an armored SSH signature in the format of ssh-keygen -Y sign
func signSSH(t *testing.T, signer ssh.Signer, namespace string, data []byte) []byte {
	t.Helper()

	hash := sha512.Sum512(data)
	var message bytes.Buffer
	message.WriteString("SSHSIG")
	_ = writeString(&message, []byte(namespace))
	_ = writeString(&message, nil)
	_ = writeString(&message, []byte("sha512"))
	_ = writeString(&message, hash[:])

	sig, err := signer.Sign(rand.Reader, message.Bytes())
	if err != nil {
		t.Fatal(err)
	}

	var blob bytes.Buffer
	blob.WriteString("SSHSIG")
	_ = binary.Write(&blob, binary.BigEndian, uint32(1))
	_ = writeString(&blob, signer.PublicKey().Marshal())
	_ = writeString(&blob, []byte(namespace))
	_ = writeString(&blob, nil)
	_ = writeString(&blob, []byte("sha512"))
	_ = writeString(&blob, ssh.Marshal(sig))

	encoded := base64.StdEncoding.EncodeToString(blob.Bytes())
	var armored bytes.Buffer
	armored.WriteString("-----BEGIN SSH SIGNATURE-----\n")
	for len(encoded) > 70 {
		armored.WriteString(encoded[:70] + "\n")
		encoded = encoded[70:]
	}
	armored.WriteString(encoded + "\n")
	armored.WriteString("-----END SSH SIGNATURE-----\n")
	return armored.Bytes()
}

func newSSHSigner(t *testing.T) (ssh.Signer, string) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	return signer, string(bytes.TrimSpace(ssh.MarshalAuthorizedKey(signer.PublicKey())))
}

// signPKCS7 wraps content into a DER SignedData signed by a throwaway certificate
func signPKCS7(t *testing.T, content []byte) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "classicube hash signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}

	signed, err := pkcs7.NewSignedData(content)
	if err != nil {
		t.Fatal(err)
	}
	signed.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := signed.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		t.Fatal(err)
	}
	out, err := signed.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return out
}
