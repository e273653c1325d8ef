package main

// Device limits and timing defaults.
const (
	defaultMaxFiles          = 20    // Track slots per directory
	defaultButtonDelayMS     = 1000  // Selector re-sample interval (ms)
	defaultSleepDelayMS      = 20000 // Idle time before sleep (ms)
	defaultPreviousRestartMS = 3000  // "previous" restarts the current track past this point (ms)
	defaultUpdateHz          = 50    // Orchestrator tick frequency (Hz)

	// Volume scale used by the fader and the audio output.
	maxVolume            = 60
	defaultInitialVolume = 30

	// Selector geometry.
	selectorPositions = 5
	adcMax            = 1023 // MCP3008 is 10-bit
)

// Default selector bands (inclusive raw ranges), highest band first.
// 950..1023 is left unclassified: an open ladder floats to the pull-up rail,
// which is the "no contact" reading.
var defaultBands = [selectorPositions]Band{
	{Min: 820, Max: 949},
	{Min: 615, Max: 819},
	{Min: 410, Max: 614},
	{Min: 205, Max: 409},
	{Min: 0, Max: 204},
}

// Default pin assignments (BCM numbering) and ADC channels.
const (
	defaultDirectoryADCChannel = 0
	defaultVolumeADCChannel    = 1
	defaultDirectoryWakeGPIO   = 5
	defaultVolumeWakeGPIO      = 6
	defaultNextGPIO            = 23
	defaultPreviousGPIO        = 24
	defaultSPIChipSelect       = 0
	defaultSPISpeedHz          = 1_000_000
)

// MPD defaults.
const (
	defaultMPDNetwork = "tcp"
	defaultMPDAddress = "127.0.0.1:6600"
	defaultMPDRetries = 10
	mpdVolumeMax      = 100
)

// Linux power/GPIO devices.
const (
	defaultGPIOChip       = "gpiochip0"
	defaultPowerStatePath = "/sys/power/state"
	wakeConsumer          = "mp3mat-wake"
)
