// Package testutil provides fixtures and mocks shared by the stt tests.
//
//   - MockEngine and MockModel: testify mocks of provider.Engine and provider.Model
//   - WriteWav: generates PCM WAV files of a given rate, channel count and length
//   - WriteFakeWhisperCLI: a shell stand-in for whisper-cli that writes -oj output
//   - WriteModel: places a weights file where the weights store looks for it
package testutil
