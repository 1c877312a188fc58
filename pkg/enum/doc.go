// Package enum implements the entity enumeration engine: given a freshly
// discovered entityID and an AECP/ACMP transport, it walks the AEM
// descriptor tree (Entity -> Configuration -> children), layers the
// dynamic state on top (GET_CONFIGURATION, GET_NAME, GET_STREAM_FORMAT,
// GET_SAMPLING_RATE, GET_CLOCK_SOURCE, GET_AUDIO_MAP, GET_MEMORY_OBJECT_LENGTH,
// and an ACMP GET_RX_STATE probe per listener stream) and returns a fully
// populated entitymodel.EntityTree.
package enum
