// Package ua holds the OPC UA identifier types shared by the nodeset
// graph, the data type importer and the value decoder: node ids,
// qualified names, localized text, node classes and the well-known
// namespace zero ids the importer needs to recognize.
package ua
