package encryption

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/tink-crypto/tink-go/v2/daead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	aes_sivpb "github.com/tink-crypto/tink-go/v2/proto/aes_siv_go_proto"
	tinkpb "github.com/tink-crypto/tink-go/v2/proto/tink_go_proto"
	"github.com/tink-crypto/tink-go/v2/tink"

	"google.golang.org/protobuf/proto"

	"github.com/idelchi/volpack/pkg/report"
)

// AesSivKeySize is the key size of the AES-SIV index cipher.
const AesSivKeySize = 64

const indexKeyInfo = "volpack/index"

// Seal authenticates and encrypts plaintext with an AES-SIV sub-key of the
// context's key, bound to associatedData.
func (c *EncryptionContext) Seal(plaintext, associatedData []byte) ([]byte, error) {
	primitive, err := c.key.aead(codeEncryption)
	if err != nil {
		return nil, err
	}

	sealed, err := primitive.EncryptDeterministically(plaintext, associatedData)
	if err != nil {
		return nil, fmt.Errorf("sealing: %w", err)
	}

	return sealed, nil
}

// Open reverses Seal. A wrong password fails with a decryption error.
func (c *EncryptionContext) Open(sealed, associatedData []byte) ([]byte, error) {
	return openSealed(c.key, sealed, associatedData)
}

// Open reverses EncryptionContext.Seal for the same password and salt.
func (d *DecryptionContext) Open(sealed, associatedData []byte) ([]byte, error) {
	return openSealed(d.key, sealed, associatedData)
}

func openSealed(key *derivedKey, sealed, associatedData []byte) ([]byte, error) {
	primitive, err := key.aead(codeDecryption)
	if err != nil {
		return nil, err
	}

	plaintext, err := primitive.DecryptDeterministically(sealed, associatedData)
	if err != nil {
		return nil, decryptionFailed(fmt.Errorf("%w: %w", ErrAuthentication, err))
	}

	return plaintext, nil
}

// aead expands the key with HKDF into an AES-SIV primitive.
func (k *derivedKey) aead(code report.Code) (tink.DeterministicAEAD, error) {
	key, err := k.bytes()
	if err != nil {
		return nil, report.Wrap(code, err, "")
	}

	derived := make([]byte, AesSivKeySize)
	defer clear(derived)

	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, []byte(indexKeyInfo)), derived); err != nil {
		return nil, report.Wrap(code, err, "deriving index key")
	}

	kh, err := newDeterministicAEADKeyHandle(derived)
	if err != nil {
		return nil, report.Wrap(code, err, "creating keyset handle")
	}

	primitive, err := daead.New(kh)
	if err != nil {
		return nil, report.Wrap(code, err, "creating DeterministicAEAD")
	}

	return primitive, nil
}

// newDeterministicAEADKeyHandle creates a Tink keyset handle for AES-SIV from raw key bytes.
func newDeterministicAEADKeyHandle(key []byte) (*keyset.Handle, error) {
	aesSivKey := &aes_sivpb.AesSivKey{
		Version:  0,
		KeyValue: key,
	}

	serializedKey, err := proto.Marshal(aesSivKey)
	if err != nil {
		return nil, fmt.Errorf("serializing AesSivKey: %w", err)
	}

	defer clear(serializedKey)

	keyData := &tinkpb.KeyData{
		TypeUrl:         "type.googleapis.com/google.crypto.tink.AesSivKey",
		Value:           serializedKey,
		KeyMaterialType: tinkpb.KeyData_SYMMETRIC,
	}

	keySet := &tinkpb.Keyset{
		PrimaryKeyId: 1,
		Key: []*tinkpb.Keyset_Key{
			{
				KeyData:          keyData,
				Status:           tinkpb.KeyStatusType_ENABLED,
				KeyId:            1,
				OutputPrefixType: tinkpb.OutputPrefixType_RAW,
			},
		},
	}

	serializedKeyset, err := proto.Marshal(keySet)
	if err != nil {
		return nil, fmt.Errorf("serializing keyset: %w", err)
	}

	defer clear(serializedKeyset)

	keySetHandle, err := insecurecleartextkeyset.Read(
		keyset.NewBinaryReader(bytes.NewReader(serializedKeyset)))
	if err != nil {
		return nil, fmt.Errorf("creating keyset handle: %w", err)
	}

	return keySetHandle, nil
}
