package gcp

import (
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
)

// URLSigner produces V4 signed URLs bound to one object.
type URLSigner interface {
	SignedPutURL(bucket, object, contentType string, expires time.Time) (string, error)
	SignedGetURL(bucket, object string, expires time.Time) (string, error)
	Account() string
}

type urlSigner struct {
	creds SigningCredentials
}

func NewURLSigner(creds SigningCredentials) (URLSigner, error) {
	if !creds.Valid() {
		return nil, ErrMissingSigningCredentials
	}
	return &urlSigner{creds: creds}, nil
}

func (s *urlSigner) Account() string { return s.creds.Account }

func (s *urlSigner) SignedPutURL(bucket, object, contentType string, expires time.Time) (string, error) {
	return s.sign(bucket, object, http.MethodPut, contentType, expires)
}

func (s *urlSigner) SignedGetURL(bucket, object string, expires time.Time) (string, error) {
	return s.sign(bucket, object, http.MethodGet, "", expires)
}

func (s *urlSigner) sign(bucket, object, method, contentType string, expires time.Time) (string, error) {
	opts := &storage.SignedURLOptions{
		GoogleAccessID: s.creds.Account,
		PrivateKey:     s.creds.PrivateKey,
		Method:         method,
		Expires:        expires,
		ContentType:    contentType,
		Scheme:         storage.SigningSchemeV4,
	}
	u, err := storage.SignedURL(bucket, object, opts)
	if err != nil {
		return "", fmt.Errorf("sign %s url for %s/%s: %w", method, bucket, object, err)
	}
	return u, nil
}
