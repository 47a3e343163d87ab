// Package blob stores the binary payloads referenced by tasks: uploaded audio
// and documents, synthesized speech, generated video and extracted documents.
//
// MemoryStore keeps payloads in a bounded LRU cache and suits single-process
// deployments; MinioStore keeps them in an S3-compatible bucket. Both return
// errors wrapping domain.ErrContentNotFound for missing keys.
package blob
