// Package test provides fixtures for testing the inotify package.
//
// The package consists of three fixtures:
//
//   - record.go encodes raw inotify records, the way the kernel lays them out
//   - kernel.go implementing Kernel, a scripted inotify.Kernel
//   - fs.go implementing FS, which performs filesystem actions producing
//     given events on a real inotify instance
//
// Kernel lets a test drive a Channel through states that are hard to reach
// with a real kernel, like interrupted reads, corrupt streams or watches
// dropped between two calls:
//
//   k := test.NewKernel()
//   k.Feed(test.Record(1, inotify.InCreate, 0, "foo"))
//   c, _ := inotify.OpenKernel(k)
//   c.AddWatch(inotify.NewWatch("/tmp", inotify.InCreate))
//   c.Wait(inotify.RetryOnInterrupt)
package test
