// Package domain defines the core business entities of the image
// generation service: generation batches, individual generations, the
// async tasks that track their background work, and users.
package domain
