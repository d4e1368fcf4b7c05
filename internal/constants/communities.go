package constants

// AliasSourceMerge - источник алиасов, созданных при слиянии сообществ
const AliasSourceMerge = "merge"
