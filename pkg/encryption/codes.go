package encryption

import "github.com/idelchi/volpack/pkg/report"

const (
	codeEncryption = report.CodeEncryption
	codeDecryption = report.CodeDecryption
)

func invalidParameter(err error, message string) error {
	return report.Wrap(report.CodeInvalidParameter, err, message)
}

func decryptionFailed(err error) error {
	return report.Wrap(report.CodeDecryption, err, "wrong password or corrupted data")
}
