package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Referencias "estilo blockchain" para las pólizas: SHA-256 truncado con
// prefijo 0x. Es puramente cosmético — no hay cadena, ni consenso, ni
// inmutabilidad; la única verificación posible es recomputar el hash.

const refHexLen = 16

// Reference genera la referencia de una póliza a partir de sus datos de compra.
func Reference(ownerUserID, policyType string, purchasedAt time.Time) string {
	payload := fmt.Sprintf("%s|%s|%d", ownerUserID, policyType, purchasedAt.UnixMilli())
	sum := sha256.Sum256([]byte(payload))
	return "0x" + hex.EncodeToString(sum[:])[:refHexLen]
}

// Verify recomputa la referencia y compara. No prueba nada más que eso.
func Verify(ownerUserID, policyType string, purchasedAt time.Time, ref string) bool {
	return strings.TrimSpace(ref) == Reference(ownerUserID, policyType, purchasedAt)
}

// TransactionID genera un id opaco tipo tx_ para respuestas de compra.
func TransactionID() string {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return "tx_" + hex.EncodeToString(sum[:])[:12]
}
