package stretch

// Engine policy constants.
const (
	// CrossfadeFrames is the length of the blend used for live FFT size
	// changes, in output frames.
	CrossfadeFrames = 16384

	// silenceThresholdDB is the level under which a mixed output frame
	// counts as silent once the source has ended.
	silenceThresholdDB = -70.0

	// endSilenceFrames is how many consecutive silent frames mark the end
	// of the stream.
	endSilenceFrames = 65536

	// outputCeiling bounds output samples when clipping is off. It only
	// catches runaway values; normal material never gets near it.
	outputCeiling = 16384.0
	// clipCeiling bounds output samples when clipping is on.
	clipCeiling = 1.0

	minVolumeDB = -144.0
	maxVolumeDB = 12.0

	maxLoopCrossfadeSeconds = 1.0

	// volumeSmoothSeconds is the glide time of the main volume.
	volumeSmoothSeconds = 0.5

	// inputScratchBlocks sizes the per-channel read buffer in FFT blocks.
	inputScratchBlocks = 3

	// dryScratchFrames is the per-channel read buffer for dry preview.
	dryScratchFrames = 65536
)

// Configuration limits.
const (
	maxChannels           = 32
	minFFTSize            = 16
	defaultFFTSize        = 4096
	defaultMaxBlockFrames = 4096
)
