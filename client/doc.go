// Package client turns one logical HTTP request into a reliable exchange:
// it follows redirects and answers authentication challenges over as many
// round trips as needed, then decodes the terminal response body through a
// pipeline of decompression, parsing and charset decoding stages.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(5*time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithThrottle(10, 5),
//	)
//
// # Streaming
//
// Request methods return a [Stream] immediately. Pull decoded bytes with
// Read or structured values with Next:
//
//	s := c.Get(ctx, "https://api.example.com/v1/items", client.WithFollowRedirects())
//	defer s.Close()
//	if s.Kind() == stage.KindObject {
//		item, err := s.Next()
//		...
//	}
//
// # Aggregation
//
// [WithCallback] collects the whole body and delivers it once. [Client.Do]
// is the blocking form:
//
//	resp, body, err := c.Do(ctx, http.MethodGet, "example.com/data.json")
//	if err == nil && body.Kind() == client.BodyObject {
//		fmt.Println(body.Object())
//	}
//
// # Output Files
//
// [WithOutput] mirrors the raw body of a 200 response to disk while it is
// consumed, with optional checksum verification and progress logging:
//
//	s := c.Get(ctx, u, client.WithOutput("/tmp/file.bin",
//		client.WithChecksum(sha256.New(), expectedHex),
//	))
//
// For lower-level control see the
// [github.com/adamwoolhether/hopper/client/download] package.
package client
