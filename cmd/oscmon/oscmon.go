package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/hypebeast/go-osc/osc"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/francesco-di-maggio/codecell/internal/config"
)

var defaultTableValue = [][]string{{"Address", "Values", "Count", "Age"}}

func getTable() *widgets.Table {
	table := widgets.NewTable()
	table.Rows = defaultTableValue
	table.ColumnWidths = []int{28, 34, 10, 10}
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.TextAlignment = ui.AlignRight
	table.SetRect(0, 0, 84, 36)
	return table
}

func printArgs(args []interface{}) string {
	str := ""
	for i, a := range args {
		switch v := a.(type) {
		case float32:
			str += fmt.Sprintf("%.3f", v)
		default:
			str += fmt.Sprintf("%v", v)
		}
		if i != len(args)-1 {
			str += ", "
		}
	}
	return str
}

type streamRow struct {
	args  string
	count uint64
	last  time.Time
}

// monitor collects every message regardless of address, bundled or not.
type monitor struct {
	mu   sync.Mutex
	rows map[string]*streamRow
}

func (m *monitor) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		m.note(p)
	case *osc.Bundle:
		for _, msg := range p.Messages {
			m.note(msg)
		}
	}
}

func (m *monitor) note(msg *osc.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[msg.Address]
	if !ok {
		r = &streamRow{}
		m.rows[msg.Address] = r
	}
	r.args = printArgs(msg.Arguments)
	r.count++
	r.last = time.Now()
}

func (m *monitor) snapshot() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	addrs := make([]string, 0, len(m.rows))
	for addr := range m.rows {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	rows := make([][]string, 0, len(addrs))
	for _, addr := range addrs {
		r := m.rows[addr]
		rows = append(rows, []string{
			addr,
			r.args,
			fmt.Sprintf("%d", r.count),
			fmt.Sprintf("%.1fs", time.Since(r.last).Seconds()),
		})
	}
	return rows
}

func updateValue(mon *monitor, table *widgets.Table) {
	for {
		table.Rows = append(defaultTableValue[:1:1], mon.snapshot()...)
		ui.Render(table)
		time.Sleep(time.Millisecond * 100)
	}
}

func _main(cmd *cobra.Command, args []string) {
	iface, _ := cmd.Flags().GetString("interface")
	port, _ := cmd.Flags().GetInt("port")

	log.Info("Starting")
	if err := ui.Init(); err != nil {
		log.Fatalf("failed to initialize termui: %v", err)
	}
	defer ui.Close()

	t := getTable()
	mon := &monitor{rows: make(map[string]*streamRow)}

	srv := &osc.Server{
		Addr:       fmt.Sprintf("%s:%d", iface, port),
		Dispatcher: mon,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("osc listen failed: %v", err)
		}
	}()
	go updateValue(mon, t)

	uiEvents := ui.PollEvents()
	for {
		e := <-uiEvents
		switch e.ID {
		case "q", "<C-c>":
			return
		}
	}

}

var rootCmd = &cobra.Command{
	Use:   "oscmon",
	Short: "live table of the node's OSC streams",
	Long:  "live table of the node's OSC streams",
	Run: func(cmd *cobra.Command, args []string) {
		_main(cmd, args)
	},
}

func main() {
	rootCmd.Flags().IntP("port", "p", config.DefaultTargetPort, "port to listen for OSC on")
	rootCmd.Flags().StringP("interface", "i", "0.0.0.0", "interface to listen on, default to 0.0.0.0")
	rootCmd.Flags().Bool("debug", false, "toggle debug logging")

	err := rootCmd.Execute()
	if err != nil {
		return
	}
}
