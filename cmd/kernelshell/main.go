// Command kernelshell drives the process/fd subsystem through a
// handful of syscalls against a real directory on disk, to exercise
// open/write/lseek/read/close and fork/waitpid end to end. Flag and
// logging style follow hanwen-go-fuse/example/loopback/main.go.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/seanbriceland/OS161/kernel"
	"github.com/seanbriceland/OS161/kernel/hostenv"
	"github.com/seanbriceland/OS161/process"
	"github.com/seanbriceland/OS161/vfs"
)

func main() {
	log.SetFlags(log.Lmicroseconds)
	root := flag.String("root", "", "directory to root the simulated filesystem at (required)")
	flag.Parse()

	if *root == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -root DIR\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	fs, err := vfs.NewHostFS(*root)
	if err != nil {
		log.Fatalf("NewHostFS: %v", err)
	}

	k := kernel.New(kernel.DefaultLimits(), fs, hostenv.AddressSpaceFactory{}, hostenv.NewELFLoader(), nil)

	init, errno := k.BootProcess(vfs.NewConsoleReader(os.Stdin), vfs.NewConsoleWriter(os.Stdout), vfs.NewConsoleWriter(os.Stderr))
	if !errno.Ok() {
		log.Fatalf("BootProcess: %v", errno)
	}

	fd, errno := k.Open(init, "greeting.txt", os.O_RDWR|os.O_CREATE|os.O_TRUNC)
	if !errno.Ok() {
		log.Fatalf("open: %v", errno)
	}
	log.Printf("opened fd=%d", fd)

	n, errno := k.Write(init, fd, []byte("hello from kernelshell\n"))
	if !errno.Ok() {
		log.Fatalf("write: %v", errno)
	}
	log.Printf("wrote %d bytes", n)

	if _, errno := k.Lseek(init, fd, 0, kernel.SeekSet); !errno.Ok() {
		log.Fatalf("lseek: %v", errno)
	}

	buf := make([]byte, 64)
	n, errno = k.Read(init, fd, buf)
	if !errno.Ok() {
		log.Fatalf("read: %v", errno)
	}
	log.Printf("read back: %q", buf[:n])

	childAS := hostenv.NewAddressSpace()
	childPid, errno := k.Fork(init, childAS, func(child *process.Record, as kernel.AddressSpace) {
		log.Printf("child pid=%d writing and exiting", child.Pid)
		k.Write(child, 1, []byte("hi from the child\n"))
		k.Exit(child, 7)
	})
	if !errno.Ok() {
		log.Fatalf("fork: %v", errno)
	}
	log.Printf("forked child pid=%d", childPid)

	var status int
	if _, errno := k.Waitpid(init, childPid, &status, 0); !errno.Ok() {
		log.Fatalf("waitpid: %v", errno)
	}
	log.Printf("child exited with code %d", kernel.WaitExitCode(status))

	if errno := k.Close(init, fd); !errno.Ok() {
		log.Fatalf("close: %v", errno)
	}
}
