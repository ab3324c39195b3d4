// Package transfer converts leads to and from CSV and XLSX files.
//
// Reading maps loosely named headers onto lead fields and returns parsed
// rows for lead.Service.Import; it never touches the database. Writing
// emits every lead field in a fixed column order.
package transfer
