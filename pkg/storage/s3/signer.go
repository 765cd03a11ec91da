package s3

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/markbang/cyop/pkg/config"
	"github.com/markbang/cyop/pkg/logger"
)

const (
	signingAlgorithm = "AWS4-HMAC-SHA256"
	serviceName      = "s3"
	// Streaming uploads are signed without a payload hash.
	unsignedPayload = "UNSIGNED-PAYLOAD"

	defaultUploadExpiry = 15 * time.Minute
	deleteExpiry        = 60 * time.Second

	amzDateFormat   = "20060102T150405Z"
	dateStampFormat = "20060102"

	maxKeyNameLen = 120
)

// Signer produces presigned URLs for an S3-compatible store using pure
// request signing. No SDK, no persistent session; every URL is derived from
// the static credentials in the validated configuration.
type Signer struct {
	cfg        config.StorageConfig
	httpClient *http.Client
	logg       *logger.Logger
	now        func() time.Time
}

// PresignInput describes one upload URL request.
type PresignInput struct {
	Key         string
	ContentType string
	ExpiresIn   time.Duration
}

// PresignedRequest is handed to the client performing the direct PUT.
type PresignedRequest struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// NewSigner validates the storage configuration and returns a ready signer.
// Missing credentials are a construction-time error, never a per-request one.
func NewSigner(cfg config.StorageConfig, logg *logger.Logger) (*Signer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Signer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logg:       logg,
		now:        time.Now,
	}, nil
}

// WithClock overrides the signing clock. Signatures are deterministic for a
// fixed timestamp, which the tests rely on.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// Bucket returns the configured bucket name.
func (s *Signer) Bucket() string {
	return s.cfg.Bucket
}

// BuildStorageKey derives a collision-resistant object key for a new upload.
// The millisecond prefix keeps two uploads of the same file apart; the name
// is reduced to lowercase alphanumerics, dots and dashes.
func (s *Signer) BuildStorageKey(datasetID int64, originalFilename string) string {
	name := sanitizeFilename(originalFilename)
	return fmt.Sprintf("datasets/%d/%d-%s", datasetID, s.now().UnixMilli(), name)
}

// BuildPublicURL derives the browsable URL for an object key.
func (s *Signer) BuildPublicURL(key string) string {
	if base := strings.TrimRight(strings.TrimSpace(s.cfg.PublicBaseURL), "/"); base != "" {
		return base + "/" + key
	}
	endpoint := s.cfg.ResolveEndpoint()
	if s.cfg.PathStyle {
		return fmt.Sprintf("%s/%s/%s", endpoint, s.cfg.Bucket, key)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Sprintf("%s/%s/%s", endpoint, s.cfg.Bucket, key)
	}
	return fmt.Sprintf("%s://%s.%s/%s", u.Scheme, s.cfg.Bucket, u.Host, key)
}

// PresignUpload returns a signed PUT URL plus the headers the uploader must
// send verbatim.
func (s *Signer) PresignUpload(input PresignInput) (*PresignedRequest, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, errors.New("storage key is required")
	}
	expires := input.ExpiresIn
	if expires <= 0 {
		expires = s.cfg.UploadURLExpiry
	}
	if expires <= 0 {
		expires = defaultUploadExpiry
	}

	signedURL, err := s.presign(http.MethodPut, input.Key, input.ContentType, expires)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if input.ContentType != "" {
		headers["Content-Type"] = input.ContentType
	}
	return &PresignedRequest{URL: signedURL, Headers: headers}, nil
}

// DeleteObject issues a short-lived signed DELETE against the object key.
// Deletion is advisory cleanup: failures are logged, never returned.
func (s *Signer) DeleteObject(ctx context.Context, key string) {
	signedURL, err := s.presign(http.MethodDelete, key, "", deleteExpiry)
	if err != nil {
		s.logError(ctx, "storage delete presign failed", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, signedURL, nil)
	if err != nil {
		s.logError(ctx, "storage delete request build failed", err)
		return
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logError(ctx, "storage delete request failed", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.logError(ctx, "storage delete rejected", fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b))))
	}
}

// presign builds the canonical request, derives the signing key and appends
// the signature as a query parameter. The algorithm must stay bit-exact with
// SigV4 or real backends will refuse the URL.
func (s *Signer) presign(method, key, contentType string, expires time.Duration) (string, error) {
	now := s.now().UTC()
	amzDate := now.Format(amzDateFormat)
	dateStamp := now.Format(dateStampFormat)

	host, canonicalURI := s.addressFor(key)
	credentialScope := strings.Join([]string{dateStamp, s.cfg.Region, serviceName, "aws4_request"}, "/")

	signedHeaders := []string{"host"}
	canonicalHeaders := "host:" + host + "\n"
	if contentType != "" {
		signedHeaders = []string{"content-type", "host"}
		canonicalHeaders = "content-type:" + contentType + "\nhost:" + host + "\n"
	}
	signedHeadersList := strings.Join(signedHeaders, ";")

	query := [][2]string{
		{"X-Amz-Algorithm", signingAlgorithm},
		{"X-Amz-Credential", s.cfg.AccessKeyID + "/" + credentialScope},
		{"X-Amz-Date", amzDate},
		{"X-Amz-Expires", strconv.FormatInt(int64(expires.Seconds()), 10)},
		{"X-Amz-SignedHeaders", signedHeadersList},
	}
	canonicalQuery := encodeQuery(query)

	canonicalRequest := strings.Join([]string{
		method,
		canonicalURI,
		canonicalQuery,
		canonicalHeaders,
		signedHeadersList,
		unsignedPayload,
	}, "\n")

	hashedRequest := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		credentialScope,
		hex.EncodeToString(hashedRequest[:]),
	}, "\n")

	signingKey := deriveSigningKey(s.cfg.SecretAccessKey, dateStamp, s.cfg.Region)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	endpoint, err := url.Parse(s.cfg.ResolveEndpoint())
	if err != nil {
		return "", fmt.Errorf("parsing storage endpoint: %w", err)
	}

	return fmt.Sprintf("%s://%s%s?%s&X-Amz-Signature=%s",
		endpoint.Scheme, host, canonicalURI, canonicalQuery, signature), nil
}

// addressFor resolves the request host and canonical URI for the configured
// addressing mode.
func (s *Signer) addressFor(key string) (host, canonicalURI string) {
	endpoint, err := url.Parse(s.cfg.ResolveEndpoint())
	if err != nil || endpoint.Host == "" {
		endpoint = &url.URL{Host: fmt.Sprintf("s3.%s.amazonaws.com", s.cfg.Region)}
	}
	if s.cfg.PathStyle {
		return endpoint.Host, "/" + uriEncode(s.cfg.Bucket, false) + "/" + uriEncode(key, true)
	}
	return s.cfg.Bucket + "." + endpoint.Host, "/" + uriEncode(key, true)
}

// deriveSigningKey runs the four-stage HMAC chain over date, region, service
// and the terminal aws4_request literal.
func deriveSigningKey(secret, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, serviceName)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

// encodeQuery percent-encodes and alphabetically sorts query parameters the
// way the string-to-sign expects them.
func encodeQuery(params [][2]string) string {
	encoded := make([]string, 0, len(params))
	for _, p := range params {
		encoded = append(encoded, uriEncode(p[0], false)+"="+uriEncode(p[1], false))
	}
	sort.Strings(encoded)
	return strings.Join(encoded, "&")
}

// uriEncode is RFC 3986 percent-encoding with the extra characters S3
// requires escaped. Slashes survive only inside object paths.
func uriEncode(value string, keepSlash bool) string {
	var b strings.Builder
	for _, r := range []byte(value) {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '~':
			b.WriteByte(r)
		case r == '/' && keepSlash:
			b.WriteByte(r)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", r))
		}
	}
	return b.String()
}

// sanitizeFilename lowers the name to a safe character set: alphanumerics,
// dots and dashes; everything else collapses to a dash.
func sanitizeFilename(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(lowered))
	lastDash := false
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
			lastDash = false
		case r == '-':
			if !lastDash {
				b.WriteRune(r)
			}
			lastDash = true
		default:
			if !lastDash {
				b.WriteRune('-')
			}
			lastDash = true
		}
	}
	cleaned := strings.Trim(b.String(), "-")
	if len(cleaned) > maxKeyNameLen {
		cleaned = strings.Trim(cleaned[:maxKeyNameLen], "-")
	}
	return cleaned
}

func (s *Signer) logError(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(ctx, msg, err)
}
