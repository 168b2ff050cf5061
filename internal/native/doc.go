// SPDX-License-Identifier: MPL-2.0

// Package native binds the C entry points exported by a language runtime
// library to Go functions and adapts them to host.Runtime.
//
// The runtime library must export:
//
//	uintptr_t langrt_create(const char *options_json);  // 0 on failure
//	int32_t   langrt_run(uintptr_t rt);                  // blocks until the loop ends
//	void      langrt_shutdown(uintptr_t rt, bool force);
//	bool      langrt_accept(uintptr_t rt, const char *user,
//	                        const char *input, const char *output,
//	                        const char *language);
//	void      langrt_destroy(uintptr_t rt);
//
// and may export:
//
//	const char *langrt_last_error(void);
//	const char *langrt_version(void);
//
// String arguments are only valid for the duration of the call; the runtime
// must copy anything it keeps.
package native
