package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hypebeast/go-osc/osc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/francesco-di-maggio/codecell/internal/config"
)

// one JSONL line per OSC message
type record struct {
	Time    string        `json:"time"`
	Address string        `json:"address"`
	Args    []interface{} `json:"args"`
}

type recorder struct {
	mu     sync.Mutex
	writer *bufio.Writer
	idx    int
	count  uint64
}

func (r *recorder) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		r.note(p)
	case *osc.Bundle:
		for _, msg := range p.Messages {
			r.note(msg)
		}
	}
}

func (r *recorder) note(msg *osc.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, err := json.Marshal(record{
		Time:    time.Now().Format(time.RFC3339Nano),
		Address: msg.Address,
		Args:    msg.Arguments,
	})
	if err != nil {
		log.Fatalf("Error marshaling packet to JSON: %v", err)
	}

	_, err = r.writer.WriteString(string(line) + "\n")
	if err != nil {
		log.Fatalf("Error writing packet to file: %v", err)
	}

	if r.idx%100 == 0 {
		err = r.writer.Flush()
		if err != nil {
			log.Fatalf("Error flushing buffer: %v", err)
		}
	}
	r.idx++
	r.count++
}

func (r *recorder) captured() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *recorder) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.writer.Flush()
}

func _main(cmd *cobra.Command, args []string) {
	iface, _ := cmd.Flags().GetString("interface")
	port, _ := cmd.Flags().GetInt("port")
	output, _ := cmd.Flags().GetString("output")

	if output == "" {
		output = fmt.Sprintf("%v.jsonl", time.Now().Format("2006-01-02T15-04-05"))
	}
	file, err := os.Create(output)
	if err != nil {
		log.Fatalf("could not create file: %v", err)
	}
	defer file.Close()

	rec := &recorder{writer: bufio.NewWriter(file)}

	srv := &osc.Server{
		Addr:       fmt.Sprintf("%s:%d", iface, port),
		Dispatcher: rec,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("osc listen failed: %v", err)
		}
	}()
	log.Infof("recording OSC from %s:%d to %s", iface, port, output)

	go func() {
		for {
			time.Sleep(time.Second * 10)
			log.Infof("captured %d messages", rec.captured())
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	rec.flush()
	log.Infof("stopped after %d messages", rec.captured())
}

var rootCmd = &cobra.Command{
	Use:   "oscrecord",
	Short: "record the node's OSC streams to a JSONL file",
	Long:  "record the node's OSC streams to a JSONL file",
	Run: func(cmd *cobra.Command, args []string) {
		_main(cmd, args)
	},
}

func main() {
	rootCmd.Flags().IntP("port", "p", config.DefaultTargetPort, "port to listen for OSC on")
	rootCmd.Flags().StringP("interface", "i", "0.0.0.0", "interface to listen on, default to 0.0.0.0")
	rootCmd.Flags().StringP("output", "o", "", "output file, default to a timestamped .jsonl")
	rootCmd.Flags().Bool("debug", false, "toggle debug logging")

	err := rootCmd.Execute()
	if err != nil {
		return
	}
}
