package builtin

// Network parameter: the duration of a chain epoch.
// Usage: it is used for deriving epoch-denominated periods that are more naturally expressed
// in clock time, such as the vesting cliff and unlock window.
const EpochDurationSeconds = 1
const SecondsInHour = 3600
const SecondsInDay = 86400
const EpochsInHour = SecondsInHour / EpochDurationSeconds
const EpochsInDay = SecondsInDay / EpochDurationSeconds
