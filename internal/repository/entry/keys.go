package entry

import "github.com/kailas-cloud/storedex/internal/domain"

const (
	entryPrefix = domain.KeyPrefix + "entry:"
	slugPrefix  = domain.KeyPrefix + "slug:"
)

func entryKey(id string) string { return entryPrefix + id }

func slugKey(s string) string { return slugPrefix + s }
