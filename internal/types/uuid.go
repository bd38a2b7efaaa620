package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

// initializeSID initializes the shortid generator once
func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortIDWithPrefix returns a short ID with a prefix.
// Total length is capped at 12 characters, e.g., `INV-XYZ12A8Q`.
// Used for human-facing invoice numbers.
func GenerateShortIDWithPrefix(prefix string) string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")

	availableLen := 12 - len(prefix)
	if availableLen <= 0 {
		return ""
	}

	if len(id) > availableLen {
		id = id[:availableLen]
	}

	return strings.ToUpper(fmt.Sprintf("%s%s", prefix, id))
}

const (
	UUID_PREFIX_MEMBER           = "mem"
	UUID_PREFIX_LOCATION         = "loc"
	UUID_PREFIX_PLAN             = "plan"
	UUID_PREFIX_PRICING          = "price"
	UUID_PREFIX_SUBSCRIPTION     = "sub"
	UUID_PREFIX_INVOICE          = "inv"
	UUID_PREFIX_INVOICE_ITEM     = "inv_item"
	UUID_PREFIX_TRANSACTION      = "txn"
	UUID_PREFIX_PROMO            = "promo"
	UUID_PREFIX_WALLET           = "wallet"
	UUID_PREFIX_WALLET_USAGE     = "wu"
	UUID_PREFIX_SCHEDULED_JOB    = "job"
	UUID_PREFIX_PAYMENT_METHOD   = "pm"
	SHORT_ID_PREFIX_INVOICE_NUM  = "INV-"
)
