/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package errmon

import (
	"errors"
	"fmt"
)

func Example() {
	monitor := New(nil, nil)

	monitor.Track(errors.New("db connection lost"), Metadata{Route: "/api/items", Method: "GET", StatusCode: 500})
	monitor.Track(errors.New("db connection lost"), Metadata{Route: "/api/items", Method: "GET", StatusCode: 500})
	monitor.Track(errors.New("upstream timeout"), Metadata{Route: "/api/users", Method: "POST", StatusCode: 504})

	summary := monitor.Summary()
	fmt.Printf("total: %d, unique: %d\n", summary.TotalErrors, summary.UniqueErrors)
	fmt.Printf("top: %s (%d occurrences)\n", summary.TopErrors[0].Message, summary.TopErrors[0].Count)

	// Output:
	// total: 3, unique: 2
	// top: db connection lost (2 occurrences)
}
