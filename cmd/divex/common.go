package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/srg/divex/internal/diveobj"
	"github.com/srg/divex/internal/sdo"
	"github.com/srg/divex/internal/transport"
)

// connectedDevice bundles everything a command needs to talk to one
// dive computer, and how to tear it down.
type connectedDevice struct {
	session *transport.Session
	object  *diveobj.Object
}

func (d *connectedDevice) Close() error {
	return d.session.Disconnect()
}

// connectByAddress scans for a peripheral whose address matches, connects
// to it, and builds the SDO engine / object API over the session. This is
// divex's equivalent of the teacher's "connect, do operation, disconnect"
// inspector wrapper, specialized to one known device rather than generic
// GATT exploration.
func connectByAddress(ctx context.Context, address string, logger *logrus.Logger, progress func(string)) (*connectedDevice, error) {
	adapter, err := transport.OpenAdapter(logger)
	if err != nil {
		return nil, err
	}

	if progress != nil {
		progress("Scanning")
	}
	peripherals, err := adapter.Scan(ctx, rootConfig.ScanTimeout)
	if err != nil {
		return nil, err
	}

	var target *transport.Peripheral
	for i := range peripherals {
		if peripherals[i].Address == address {
			target = &peripherals[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", transport.ErrNoDeviceFound, address)
	}

	if progress != nil {
		progress("Connecting")
	}
	session, err := adapter.Connect(ctx, *target, transport.DefaultWriteUUID, transport.DefaultNotifyUUID, rootConfig.ConnTimeout)
	if err != nil {
		return nil, err
	}

	engine := sdo.New(session, logger)
	return &connectedDevice{session: session, object: diveobj.New(engine)}, nil
}
