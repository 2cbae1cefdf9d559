package sealer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// AlgorithmKMS names blobs sealed by KMS.
const AlgorithmKMS = "aws-kms"

// kmsAPI is the subset of *kms.Client used by KMS.
type kmsAPI interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Compile-time interface satisfaction check.
var _ driven.Sealer = (*KMS)(nil)

// KMS seals values with an AWS KMS symmetric key. The key material never
// leaves KMS; every Seal and Open is a network call.
type KMS struct {
	client kmsAPI
	keyID  string
}

// encryptionContext binds ciphertexts to this application. KMS refuses to
// decrypt a blob under a different context.
var encryptionContext = map[string]string{"app": "bitbrowse"}

// NewKMS loads the default AWS configuration for region and returns a KMS
// sealer for keyID (key id, ARN or alias).
func NewKMS(ctx context.Context, keyID, region string) (*KMS, error) {
	if keyID == "" {
		return nil, errors.New("KMS key ID is required")
	}
	if region == "" {
		return nil, errors.New("AWS region is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return newKMSWithClient(kms.NewFromConfig(cfg), keyID), nil
}

func newKMSWithClient(client kmsAPI, keyID string) *KMS {
	return &KMS{client: client, keyID: keyID}
}

func (s *KMS) Seal(ctx context.Context, plaintext []byte) ([]byte, error) {
	out, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(s.keyID),
		Plaintext:         plaintext,
		EncryptionContext: encryptionContext,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS encrypt: %w", err)
	}
	return wrap(AlgorithmKMS, s.keyID, out.CiphertextBlob), nil
}

// Open decrypts a KMS blob. The key ID in the header is informational: KMS
// resolves the key from the ciphertext itself, so aliases and ARNs of the
// same key are interchangeable.
func (s *KMS) Open(ctx context.Context, sealed []byte) ([]byte, error) {
	alg, _, payload, err := unwrap(sealed)
	if err != nil {
		return nil, err
	}
	if alg != AlgorithmKMS {
		return nil, fmt.Errorf("sealed with %s, have %s: %w", alg, AlgorithmKMS, driven.ErrCorrupt)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty ciphertext: %w", driven.ErrCorrupt)
	}

	out, err := s.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob:    payload,
		KeyId:             aws.String(s.keyID),
		EncryptionContext: encryptionContext,
	})
	if err != nil {
		var invalid *types.InvalidCiphertextException
		var incorrect *types.IncorrectKeyException
		if errors.As(err, &invalid) || errors.As(err, &incorrect) {
			return nil, fmt.Errorf("KMS decrypt: %w", errors.Join(driven.ErrCorrupt, err))
		}
		return nil, fmt.Errorf("KMS decrypt: %w", err)
	}
	return out.Plaintext, nil
}

func (s *KMS) Algorithm() string { return AlgorithmKMS }

func (s *KMS) KeyID() string { return s.keyID }
